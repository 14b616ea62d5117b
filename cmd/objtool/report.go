package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Faultbox/objengine/internal/engine/texture"
	"github.com/Faultbox/objengine/pkg/formats"
)

// Report summarizes an OBJ file and the materials it references.
type Report struct {
	Path       string
	Positions  int
	Normals    int
	TexCoords  int
	Faces      int
	Partitions []PartitionInfo
	Libraries  []LibraryInfo
}

// PartitionInfo is one usemtl group.
type PartitionInfo struct {
	Material string
	Faces    int
	Defined  bool // a loaded library declares the material
}

// LibraryInfo is one mtllib reference.
type LibraryInfo struct {
	Path      string
	Err       error
	Materials []MaterialInfo
}

// MaterialInfo is one newmtl entry.
type MaterialInfo struct {
	Name       string
	DiffuseMap string // resolved path, empty when absent
	MapErr     error  // set when the diffuse map is missing or does not decode
}

// Inspect parses an OBJ and its material libraries. Texture files are only
// decoded when decode is set; otherwise they are only checked for existence.
func Inspect(path string, decode bool) (*Report, error) {
	obj, err := formats.LoadOBJ(path)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Path:      path,
		Positions: len(obj.Positions),
		Normals:   len(obj.Normals),
		TexCoords: len(obj.TexCoords),
		Faces:     obj.FaceCount(),
	}

	defined := make(map[string]bool)
	dir := filepath.Dir(path)
	for _, lib := range obj.MaterialLibs {
		info := LibraryInfo{Path: filepath.Join(dir, lib)}
		mtl, err := formats.LoadMTL(info.Path)
		if err != nil {
			info.Err = err
			r.Libraries = append(r.Libraries, info)
			continue
		}
		mtlDir := filepath.Dir(info.Path)
		for _, m := range mtl.Materials {
			mi := MaterialInfo{Name: m.Name}
			if m.DiffuseMap != "" {
				mi.DiffuseMap = filepath.Join(mtlDir, m.DiffuseMap)
				mi.MapErr = checkTexture(mi.DiffuseMap, decode)
			}
			defined[m.Name] = true
			info.Materials = append(info.Materials, mi)
		}
		r.Libraries = append(r.Libraries, info)
	}

	for _, g := range obj.Groups {
		if len(g.Faces) == 0 {
			continue
		}
		r.Partitions = append(r.Partitions, PartitionInfo{
			Material: g.Material,
			Faces:    len(g.Faces),
			Defined:  defined[g.Material],
		})
	}
	sort.SliceStable(r.Partitions, func(i, j int) bool {
		return r.Partitions[i].Faces > r.Partitions[j].Faces
	})

	return r, nil
}

func checkTexture(path string, decode bool) error {
	if !decode {
		if _, err := os.Stat(path); err != nil {
			return err
		}
		return nil
	}
	_, err := texture.LoadImage(path, 0)
	return err
}

// Problems lists everything that would make the model render with
// placeholders.
func (r *Report) Problems() []error {
	var errs []error
	for _, lib := range r.Libraries {
		if lib.Err != nil {
			errs = append(errs, fmt.Errorf("material library %s: %w", lib.Path, lib.Err))
		}
		for _, m := range lib.Materials {
			if m.MapErr != nil {
				errs = append(errs, fmt.Errorf("material %s: diffuse map: %w", m.Name, m.MapErr))
			}
		}
	}
	for _, p := range r.Partitions {
		if !p.Defined && p.Material != formats.DefaultMaterial {
			errs = append(errs, fmt.Errorf("partition %s: material not declared", p.Material))
		}
	}
	return errs
}

// Vertices returns the number of vertices the partitions expand to.
func (r *Report) Vertices() int {
	return r.Faces * 3
}

// Check validates one file. Parse errors and material problems are joined.
func Check(path string, decode bool) error {
	r, err := Inspect(path, decode)
	if err != nil {
		return err
	}
	return errors.Join(r.Problems()...)
}
