// Package shader compiles and links GLSL programs.
package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Stage is a GL shader type.
type Stage uint32

// GL shader stages. Hull and domain map to tessellation control and
// evaluation.
const (
	Vertex   Stage = gl.VERTEX_SHADER
	Fragment Stage = gl.FRAGMENT_SHADER
	Geometry Stage = gl.GEOMETRY_SHADER
	Hull     Stage = gl.TESS_CONTROL_SHADER
	Domain   Stage = gl.TESS_EVALUATION_SHADER
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	case Geometry:
		return "geometry"
	case Hull:
		return "tess control"
	case Domain:
		return "tess evaluation"
	default:
		return fmt.Sprintf("stage(%#x)", uint32(s))
	}
}

// ReadSource reads a shader from disk, falling back to the builtin sources
// by file name.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	data, berr := fs.ReadFile(Builtin, filepath.Base(path))
	if berr != nil {
		return "", fmt.Errorf("shader %s: %w", path, err)
	}
	return string(data), nil
}

// Compile compiles a single shader stage.
func Compile(source string, stage Stage) (uint32, error) {
	shader := gl.CreateShader(uint32(stage))
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(shader, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", stage, log)
	}

	return shader, nil
}

// Link links compiled shaders into a program. The shaders stay owned by
// the caller.
func Link(shaders ...uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", log)
	}

	return program, nil
}

// CompileProgram compiles vertex and fragment sources and links them.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vs, err := Compile(vertexSrc, Vertex)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)

	frag, err := Compile(fragmentSrc, Fragment)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	return Link(vs, frag)
}

func infoLog(obj uint32,
	getiv func(uint32, uint32, *int32),
	getLog func(uint32, int32, *int32, *uint8)) string {
	var logLen int32
	getiv(obj, gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return "(no log)"
	}
	log := make([]byte, logLen)
	getLog(obj, logLen, nil, &log[0])
	return string(log)
}

// GetUniform returns the uniform location for the given name, or -1.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// BindUniformBlock binds a named uniform block to a binding point. It
// reports false when the program has no such block.
func BindUniformBlock(program uint32, name string, binding uint32) bool {
	idx := gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
	if idx == gl.INVALID_INDEX {
		return false
	}
	gl.UniformBlockBinding(program, idx, binding)
	return true
}
