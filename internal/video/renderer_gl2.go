package video

import (
	"fmt"

	gl "github.com/go-gl/gl/v2.1/gl"

	carerrors "github.com/dashlink/carbridge/internal/errors"
)

// GL2Renderer uploads each decoded frame as a 2D texture and blits a
// fullscreen textured quad, the bounded slice of richinsley-goshadertoy's
// renderer that CarBridge actually needs: there is no shader-uniform
// wiring here, only texture upload and a fixed-function blit, since the
// domain is video frame presentation rather than arbitrary fragment shaders.
type GL2Renderer struct {
	width, height int
	texture       uint32
	initialized   bool
}

// NewGL2Renderer creates a renderer bound to an existing current GL
// context (context creation/windowing is the caller's responsibility, the
// same division of labor as the teacher's renderer_linux.go/
// renderer_generic.go, which take a pre-built context).
func NewGL2Renderer(width, height int) (*GL2Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, carerrors.NewMediaError("video.gl2.init", err)
	}
	r := &GL2Renderer{width: width, height: height}
	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	r.initialized = true
	return r, nil
}

// Draw uploads f.RGBA as the current texture contents and blits it as a
// fullscreen quad.
func (r *GL2Renderer) Draw(f Frame) error {
	if len(f.RGBA) != f.Width*f.Height*4 {
		return carerrors.NewMediaError("video.gl2.draw", fmt.Errorf("buffer size %d does not match %dx%d RGBA", len(f.RGBA), f.Width, f.Height))
	}
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(f.Width), int32(f.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.RGBA))

	gl.Enable(gl.TEXTURE_2D)
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(-1, -1)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(1, -1)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(1, 1)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(-1, 1)
	gl.End()
	return nil
}

// Resize updates the expected frame dimensions for the next Draw call.
func (r *GL2Renderer) Resize(width, height int) error {
	r.width, r.height = width, height
	return nil
}

// Close releases the GL texture object.
func (r *GL2Renderer) Close() error {
	if r.initialized {
		gl.DeleteTextures(1, &r.texture)
		r.initialized = false
	}
	return nil
}
