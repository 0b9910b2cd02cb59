// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package loader reads Wavefront OBJ geometry into the flat mesh arrays
// consumed by rtk.Build. It handles vertex positions, texture
// coordinates, normals and (fan-triangulated) faces; materials, groups
// and the rest of the format are ignored.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gviegas/rtk"
	"github.com/gviegas/rtk/internal/rhmap"
	"github.com/gviegas/rtk/linear"
)

// ErrNoGeometry means that the file parsed cleanly but contained no
// faces to trace against.
var ErrNoGeometry = errors.New("loader: no triangles in input")

// objIndex is one face corner as written in the file: position, UV and
// normal indices (0 when absent — OBJ indices are 1-based).
type objIndex struct {
	pos, uv, norm uint32
}

// LoadFile reads the OBJ file at name and returns its contents as a
// single mesh description.
func LoadFile(name string) (*rtk.MeshDesc, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer file.Close()
	mesh, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return mesh, nil
}

// Load reads OBJ data from r and returns it as a single mesh
// description, with one output vertex per distinct (position, uv,
// normal) corner triple. The mesh transform is the identity.
func Load(r io.Reader) (*rtk.MeshDesc, error) {
	var positions []linear.V3
	var uvs []linear.V2
	var normals []linear.V3

	// Corners with identical index triples collapse to one output
	// vertex, assigned in first-seen order.
	var corners rhmap.Map[objIndex]

	var indices []uint32
	lineno := 0

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 1<<16), 1<<20)
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("loader: line %d: %w", lineno, err)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("loader: line %d: %w", lineno, err)
			}
			normals = append(normals, v)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("loader: line %d: vt needs 2 components", lineno)
			}
			var uv linear.V2
			for i := 0; i < 2; i++ {
				f, err := strconv.ParseFloat(fields[1+i], 32)
				if err != nil {
					return nil, fmt.Errorf("loader: line %d: %w", lineno, err)
				}
				uv[i] = float32(f)
			}
			uvs = append(uvs, uv)
		case "f":
			n := len(fields) - 1
			if n < 3 {
				return nil, fmt.Errorf("loader: line %d: face with %d corners", lineno, n)
			}
			face := make([]uint32, n)
			for i := 0; i < n; i++ {
				ix, err := parseCorner(fields[1+i], len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("loader: line %d: %w", lineno, err)
				}
				v, _ := corners.Insert(ix, rhmap.HashU32(ix.pos, ix.uv, ix.norm))
				face[i] = v
			}
			// Fan triangulation, as in typical importer front ends.
			for i := 1; i+1 < n; i++ {
				indices = append(indices, face[0], face[i], face[i+1])
			}
		default:
			// o, g, s, usemtl, mtllib and friends carry no geometry.
		}
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if len(indices) == 0 {
		return nil, ErrNoGeometry
	}

	mesh := &rtk.MeshDesc{
		Vertices: make([]linear.V3, corners.Len()),
		Indices:  indices,
	}
	mesh.Transform.I()
	hasUV := false
	hasNorm := false
	for _, c := range corners.Keys() {
		if c.uv != 0 {
			hasUV = true
		}
		if c.norm != 0 {
			hasNorm = true
		}
	}
	if hasUV {
		mesh.UVs = make([]linear.V2, corners.Len())
	}
	if hasNorm {
		mesh.Normals = make([]linear.V3, corners.Len())
	}
	for i, c := range corners.Keys() {
		mesh.Vertices[i] = positions[c.pos-1]
		if hasUV && c.uv != 0 {
			mesh.UVs[i] = uvs[c.uv-1]
		}
		if hasNorm && c.norm != 0 {
			mesh.Normals[i] = normals[c.norm-1]
		}
	}
	return mesh, nil
}

// parseCorner parses one "v", "v/vt", "v//vn" or "v/vt/vn" face corner.
// Negative indices count back from the current end of the respective
// array, per the OBJ spec.
func parseCorner(s string, npos, nuv, nnorm int) (objIndex, error) {
	var ix objIndex
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return ix, fmt.Errorf("malformed corner %q", s)
	}

	resolve := func(part string, n int) (uint32, error) {
		if part == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("malformed corner %q: %w", s, err)
		}
		if v < 0 {
			v += n + 1
		}
		if v < 1 || v > n {
			return 0, fmt.Errorf("corner %q: index %s out of range", s, part)
		}
		return uint32(v), nil
	}

	var err error
	if ix.pos, err = resolve(parts[0], npos); err != nil {
		return ix, err
	}
	if ix.pos == 0 {
		return ix, fmt.Errorf("corner %q: missing position index", s)
	}
	if len(parts) > 1 {
		if ix.uv, err = resolve(parts[1], nuv); err != nil {
			return ix, err
		}
	}
	if len(parts) > 2 {
		if ix.norm, err = resolve(parts[2], nnorm); err != nil {
			return ix, err
		}
	}
	return ix, nil
}

func parseFloats3(fields []string) (linear.V3, error) {
	var v linear.V3
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 components, have %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
