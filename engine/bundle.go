package engine

import (
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// entrypointGlobal is the global under which the bundled module's default
// export is made available once wrapBundle has run inside the VM.
const entrypointGlobal = "__fn_module_default"

// bundle transforms an ES module source into a plain script that assigns
// its default export to globalThis.__fn_module_default. esbuild's
// Transform API is used for a single-file, no-resolver bundle: a bare
// `import` specifier has nothing to resolve against and is reported as a
// build error, which is exactly the contract a single-file function
// deployment wants.
func bundle(source string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Format:     api.FormatIIFE,
		GlobalName: "globalThis." + entrypointGlobal + "_ns",
		Target:     api.ESNext,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			loc := ""
			if m.Location != nil {
				loc = m.Location.File
				if m.Location.Line > 0 {
					loc += ":" + strconv.Itoa(m.Location.Line)
				}
			}
			if loc != "" {
				msgs = append(msgs, loc+": "+m.Text)
			} else {
				msgs = append(msgs, m.Text)
			}
		}
		return "", &bundleError{messages: msgs}
	}

	code := string(result.Code)
	// esbuild puts the ES module's `export default` under a .default
	// property of the IIFE namespace object. Unwrap it to the global the
	// rest of the engine expects to find the function at.
	code += "\nglobalThis." + entrypointGlobal + " = (globalThis." + entrypointGlobal + "_ns && globalThis." + entrypointGlobal + "_ns.default) || undefined;\n"
	code += "delete globalThis." + entrypointGlobal + "_ns;\n"
	return code, nil
}

type bundleError struct {
	messages []string
}

func (e *bundleError) Error() string {
	return strings.Join(e.messages, "; ")
}
