// Command musgen regenerates the MUS serializers for the persisted core records.
package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/gleaner/core"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// go generate runs from core/
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/gleaner/core"),
	)
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Chunk]())
	if err != nil {
		panic(err)
	}

	// Chunk is embedded, so it is serialized as the first field.
	err = g.AddStruct(reflect.TypeFor[core.EmbeddedChunk]())
	if err != nil {
		panic(err)
	}

	// Unix micro timestamps, decoded as UTC
	micro := typeops.WithTimeUnit(typeops.MicroUTC)
	err = g.AddStruct(reflect.TypeFor[core.LedgerEntry](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(micro))
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	err = os.WriteFile("./core/records_mus.gen.go", bs, 0644)
	if err != nil {
		panic(err)
	}
}
