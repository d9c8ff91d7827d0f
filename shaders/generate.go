// Package shaders holds the GLSL sources of the forward pipeline. The renderer loads the
// compiled SPIR-V from this directory at startup; run go generate with glslc on the PATH
// after editing a shader.
package shaders

//go:generate glslc shader.vert -o shader.vert.spv
//go:generate glslc shader.frag -o shader.frag.spv
