// Package personas ships the built-in persona definitions and the Go
// behavior bound to them: the standup comic and the two companions.
package personas

import (
	"embed"
	"fmt"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

//go:embed data/*.yaml
var data embed.FS

// Definitions parses the embedded persona definitions.
func Definitions() ([]*persona.Definition, error) {
	return persona.LoadFS(data, "data")
}

// Bind attaches the built-in Go behavior to lib. Definitions added later
// under these ids, from any source, pick it up.
func Bind(lib *persona.Library) {
	lib.Bind(ComicID, comicBinding)
	lib.Bind(GirlfriendID, companionBinding)
	lib.Bind(BoyfriendID, companionBinding)
}

// Register binds the built-in behavior and adds every embedded definition.
func Register(lib *persona.Library) error {
	Bind(lib)
	defs, err := Definitions()
	if err != nil {
		return fmt.Errorf("built-in personas: %w", err)
	}
	if err := lib.AddAll(defs); err != nil {
		return err
	}
	for _, def := range defs {
		lib.Protect(def.ID)
	}
	return nil
}

func comicBinding(def *persona.Definition) ([]persona.Option, error) {
	c, err := NewComic(def)
	if err != nil {
		return nil, err
	}
	return c.Options(), nil
}

func companionBinding(def *persona.Definition) ([]persona.Option, error) {
	c, err := NewCompanion(def)
	if err != nil {
		return nil, err
	}
	return c.Options(), nil
}
