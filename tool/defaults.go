package tool

import (
	"github.com/Lewis121025/Generate-Agent/provider"
	"github.com/Lewis121025/Generate-Agent/sandbox"
)

// RegisterDefaults wires the built-in capabilities into the runtime: code
// execution, web search, web scraping, video generation and speech synthesis.
func RegisterDefaults(r *Runtime, sb sandbox.Sandbox, limits sandbox.Limits, registry *provider.Registry) {
	r.Register(NewCodeInterpreter(sb, limits))
	r.Register(&WebSearch{Registry: registry})
	r.Register(&WebScrape{Registry: registry})
	r.Register(&GenerateVideo{Registry: registry})
	r.Register(&TextToSpeech{Registry: registry})
}
