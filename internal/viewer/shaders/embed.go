// Package shaders provides the embedded GLSL sources for the viewer.
package shaders

import _ "embed"

// ModelVertexShader transforms mesh vertices and builds the TBN basis.
//
//go:embed model.vert
var ModelVertexShader string

// ModelFragmentShader is a Blinn-Phong shader over the four material maps.
//
//go:embed model.frag
var ModelFragmentShader string
