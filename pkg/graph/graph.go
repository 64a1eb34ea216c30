// Package graph reads the flow network and flow decomposition file formats.
//
// A network file starts with "|V| |E|" followed by |E| "u v flow" triples. Vertex 1 is the
// source and vertex |V| the sink. A decomposition file starts with "|P| |C|" followed by
// |P| path lines and |C| cycle lines, each a weight followed by the visited vertices.
package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mini-maxit/harness/pkg/constants"
	customErr "github.com/mini-maxit/harness/pkg/errors"
)

type Edge struct {
	From int
	To   int
}

type Network struct {
	Vertices int
	Edges    int
	Flow     map[Edge]int // flow of parallel edges is summed
}

func (n *Network) Source() int { return constants.SourceVertex }

func (n *Network) Sink() int { return n.Vertices }

// MaxFlow returns the largest flow on a single edge, 0 for an empty network.
func (n *Network) MaxFlow() int {
	maxFlow := 0
	for _, f := range n.Flow {
		if f > maxFlow {
			maxFlow = f
		}
	}
	return maxFlow
}

type Walk struct {
	Weight int
	Nodes  []int
}

type Decomposition struct {
	Paths  []Walk
	Cycles []Walk
}

func (d *Decomposition) Size() int { return len(d.Paths) + len(d.Cycles) }

func ReadNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := ParseNetwork(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ParseNetwork reads a network as a stream of whitespace separated integers.
func ParseNetwork(r io.Reader) (*Network, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	next := func(what string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("%w: input is incomplete, expected %s", customErr.ErrMalformedGraph, what)
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an integer: %q", customErr.ErrMalformedGraph, what, sc.Text())
		}
		return v, nil
	}

	vertices, err := next("vertex count")
	if err != nil {
		return nil, err
	}
	edges, err := next("edge count")
	if err != nil {
		return nil, err
	}
	if vertices < 0 || edges < 0 {
		return nil, fmt.Errorf("%w: negative vertex or edge count", customErr.ErrMalformedGraph)
	}

	n := &Network{Vertices: vertices, Edges: edges, Flow: make(map[Edge]int, edges)}
	for i := 0; i < edges; i++ {
		u, err := next(fmt.Sprintf("source of edge %d", i+1))
		if err != nil {
			return nil, err
		}
		v, err := next(fmt.Sprintf("target of edge %d", i+1))
		if err != nil {
			return nil, err
		}
		flow, err := next(fmt.Sprintf("flow of edge %d", i+1))
		if err != nil {
			return nil, err
		}
		n.Flow[Edge{From: u, To: v}] += flow
	}

	return n, nil
}

func ReadDecompositionFile(path string) (*Decomposition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ParseDecomposition(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDecomposition reads the header and the announced walks. Blank lines are ignored and
// anything after the last announced walk, such as a run status trailer, is not read.
func ParseDecomposition(r io.Reader) (*Decomposition, error) {
	lines, err := nonEmptyLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: file is empty", customErr.ErrMalformedDecomposition)
	}

	header, err := parseInts(lines[0])
	if err != nil || len(header) < 2 {
		return nil, fmt.Errorf("%w: invalid header %q", customErr.ErrMalformedDecomposition, lines[0])
	}
	numPaths, numCycles := header[0], header[1]
	if numPaths < 0 || numCycles < 0 {
		return nil, fmt.Errorf("%w: negative path or cycle count", customErr.ErrMalformedDecomposition)
	}

	d := &Decomposition{}
	idx := 1
	readWalks := func(count int, kind string) ([]Walk, error) {
		walks := make([]Walk, 0, count)
		for i := 0; i < count; i++ {
			if idx >= len(lines) {
				return nil, fmt.Errorf("%w: missing %s definitions", customErr.ErrMalformedDecomposition, kind)
			}
			parts, err := parseInts(lines[idx])
			if err != nil {
				return nil, fmt.Errorf("%w: %s %d: %v", customErr.ErrMalformedDecomposition, kind, i+1, err)
			}
			if len(parts) < 2 {
				return nil, fmt.Errorf("%w: %s %d has no vertices", customErr.ErrMalformedDecomposition, kind, i+1)
			}
			walks = append(walks, Walk{Weight: parts[0], Nodes: parts[1:]})
			idx++
		}
		return walks, nil
	}

	if d.Paths, err = readWalks(numPaths, "path"); err != nil {
		return nil, err
	}
	if d.Cycles, err = readWalks(numCycles, "cycle"); err != nil {
		return nil, err
	}

	return d, nil
}

func nonEmptyLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func parseInts(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", f)
		}
		out[i] = v
	}
	return out, nil
}
