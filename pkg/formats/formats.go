// Package formats parses Wavefront OBJ geometry and MTL material libraries.
//
// OBJ positions and normals are mirrored on X and texture V is flipped so
// the data can be used directly by the left-handed renderer.
package formats
