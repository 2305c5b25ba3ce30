package renderer

import (
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/shader"
)

// Uniform names every fragment variant may declare. Any of them may be
// missing from a given shader; its location is then -1 and writes are
// dropped.
const (
	uniformResolution = "u_resolution"
	uniformMirror     = "u_mirror"
	uniformTexture    = "u_texture"
	uniformLeftEye    = "u_leftEye"
	uniformRightEye   = "u_rightEye"
	uniformTime       = "u_time"
	uniformMouth      = "u_mouth"
	uniformNose       = "u_noseBridge"
	uniformFaceUp     = "u_faceUp"
	uniformOpenMouth  = "u_openMouth"
	uniformVertices   = "u_vertices"
	uniformAudio      = "u_audio"

	attribPosition = "a_position"
	attribTexcoord = "a_texcoord"
)

// Attribute locations fixed by the layout qualifiers of shader.DefaultVertex.
const (
	positionLocation int32 = 0
	texcoordLocation int32 = 1
)

// uniformTable holds the locations resolved against one linked program.
// Locations are not transferable between programs.
type uniformTable struct {
	resolution int32
	mirror     int32
	texture    int32
	leftEye    int32
	rightEye   int32
	time       int32
	mouth      int32
	noseBridge int32
	faceUp     int32
	openMouth  int32
	vertices   int32
	audio      int32
}

// deviceName returns the name a declared variable has in the translated
// code of either stage, or name itself when no translator renamed it.
func deviceName(name string, units ...*shader.Unit) string {
	for _, u := range units {
		if mapped, ok := u.MappedName(name); ok {
			return mapped
		}
	}
	return name
}

func resolveUniforms(dev graphics.Device, program uint32, vertex, fragment *shader.Unit) uniformTable {
	loc := func(name string) int32 {
		return dev.UniformLocation(program, deviceName(name, fragment, vertex))
	}
	arrayLoc := func(name string) int32 {
		if l := loc(name); l != -1 {
			return l
		}
		return dev.UniformLocation(program, deviceName(name, fragment, vertex)+"[0]")
	}
	u := uniformTable{
		resolution: loc(uniformResolution),
		mirror:     loc(uniformMirror),
		texture:    loc(uniformTexture),
		leftEye:    loc(uniformLeftEye),
		rightEye:   loc(uniformRightEye),
		time:       loc(uniformTime),
		mouth:      loc(uniformMouth),
		noseBridge: arrayLoc(uniformNose),
		faceUp:     loc(uniformFaceUp),
		openMouth:  loc(uniformOpenMouth),
		vertices:   arrayLoc(uniformVertices),
		audio:      loc(uniformAudio),
	}
	graphics.Logger().Debug("resolved uniforms",
		"program", program,
		"resolution", u.resolution, "mirror", u.mirror, "texture", u.texture,
		"leftEye", u.leftEye, "rightEye", u.rightEye, "time", u.time)
	return u
}

func resolveAttrib(dev graphics.Device, program uint32, vertex *shader.Unit, name string, fixed int32) int32 {
	if l := dev.AttribLocation(program, deviceName(name, vertex)); l != -1 {
		return l
	}
	return fixed
}
