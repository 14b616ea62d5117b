package shader

import (
	"embed"
	"io/fs"
)

// Default model shader paths, resolved against Builtin when not on disk.
const (
	ModelVertex   = "model.vert"
	ModelFragment = "model.frag"
)

//go:embed shaders/*.vert shaders/*.frag
var builtin embed.FS

// Builtin holds the default GLSL sources.
var Builtin fs.FS = mustSub(builtin, "shaders")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
