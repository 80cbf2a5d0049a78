// Package geometry is a small table of named image geometries rufsctl's
// format subcommand can select by name, rather than requiring the caller
// to spell out block size / inode count / data block count by hand. It
// does not change any on-disk format decision.
package geometry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry names one combination of block size, inode count, and data
// block count.
type Geometry struct {
	Slug      string `csv:"slug"`
	Name      string `csv:"name"`
	BlockSize uint32 `csv:"block_size"`
	IMax      uint32 `csv:"i_max"`
	DMax      uint32 `csv:"d_max"`
}

//go:embed geometries.csv
var rawCSV string

var bySlug map[string]Geometry

func init() {
	bySlug = make(map[string]Geometry)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := bySlug[row.Slug]; exists {
			return fmt.Errorf("geometry: duplicate slug %q", row.Slug)
		}
		bySlug[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Lookup returns the named geometry, or an error if no such slug exists.
func Lookup(slug string) (Geometry, error) {
	g, ok := bySlug[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("geometry: no predefined geometry named %q", slug)
	}
	return g, nil
}

// Names returns every known geometry slug.
func Names() []string {
	names := make([]string, 0, len(bySlug))
	for slug := range bySlug {
		names = append(names, slug)
	}
	return names
}
