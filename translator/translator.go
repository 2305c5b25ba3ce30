// Package translator adapts goshadertranslator (ANGLE compiled to wasm) to
// shader.Translator. User sources are WebGL2 GLSL ES 3.00; the translator
// rewrites them into the dialect of the current context and reports the
// names it assigned to uniforms, attributes and varyings.
package translator

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	gst "github.com/richinsley/goshadertranslator"

	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/shader"
)

var (
	sharedOnce sync.Once
	shared     *gst.ShaderTranslator
	sharedErr  error
)

// Translator implements shader.Translator.
type Translator struct {
	st   *gst.ShaderTranslator
	gles bool
}

// New returns a Translator producing GLSL 410 core, or ESSL when gles is set.
// The underlying wasm runtime is created once per process.
func New(ctx context.Context, gles bool) (*Translator, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = gst.NewShaderTranslator(ctx)
	})
	if sharedErr != nil {
		return nil, errors.Wrap(sharedErr, "failed to create shader translator")
	}
	return &Translator{st: shared, gles: gles}, nil
}

// Translate translates one stage. Translator diagnostics come back as a
// *shader.CompileError, in the same `ERROR: <n>:<line>: <msg>` form a GL
// driver uses.
func (t *Translator) Translate(src shader.Source) (*shader.Translation, error) {
	stage := "fragment"
	if src.Stage == graphics.VertexStage {
		stage = "vertex"
	}
	outputFormat := gst.OutputFormatGLSL410
	if t.gles {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := t.st.TranslateShader(src.Text, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, &shader.CompileError{
			Stage: src.Stage,
			Log:   err.Error(),
			Lines: shader.SplitLog(err.Error()),
		}
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return &shader.Translation{Code: out.Code, Names: names}, nil
}

var _ shader.Translator = (*Translator)(nil)
