// Package translator converts GLSL ES 3.00 sources to the dialect of the
// current OpenGL context.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translator *gst.ShaderTranslator
	initErr    error
	initOnce   sync.Once
)

// GetTranslator returns the process-wide translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	initOnce.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
	})
	if initErr != nil {
		return nil, fmt.Errorf("creating shader translator: %w", initErr)
	}
	return translator, nil
}

// Result is a translated shader together with the names the translator gave
// to the declared variables.
type Result struct {
	Code   string
	Mapped map[string]string
}

// Translate converts an ES 3.00 source for the given stage ("vertex" or
// "fragment"). gles selects ESSL output, otherwise GLSL 4.10 core.
func Translate(stage, source string, gles bool) (*Result, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, err
	}
	outputFormat := gst.OutputFormatGLSL410
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	res := &Result{Code: out.Code, Mapped: make(map[string]string, len(out.Variables))}
	for name, v := range out.Variables {
		res.Mapped[name] = v.MappedName
	}
	return res, nil
}
