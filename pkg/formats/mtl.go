package formats

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MTLMaterial is one newmtl block. DiffuseMap is the raw map_Kd reference,
// empty when the material has none.
type MTLMaterial struct {
	Name       string
	DiffuseMap string
}

// MTL is a parsed material library.
type MTL struct {
	Materials []MTLMaterial // first-declaration order
}

// Material returns the material with the given name, or nil.
func (m *MTL) Material(name string) *MTLMaterial {
	for i := range m.Materials {
		if m.Materials[i].Name == name {
			return &m.Materials[i]
		}
	}
	return nil
}

// ParseMTL parses MTL text. Only newmtl and map_Kd are interpreted.
func ParseMTL(r io.Reader) (*MTL, error) {
	mtl := &MTL{}
	index := make(map[string]int)
	current := -1

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: newmtl without a name", ErrMalformedLine)}
			}
			name := strings.Join(fields[1:], " ")
			if idx, ok := index[name]; ok {
				current = idx
				continue
			}
			mtl.Materials = append(mtl.Materials, MTLMaterial{Name: name})
			current = len(mtl.Materials) - 1
			index[name] = current

		case "map_Kd":
			if current < 0 {
				continue
			}
			if len(fields) < 2 {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: map_Kd without a file", ErrMalformedLine)}
			}
			// Options such as -s or -o precede the file name.
			mtl.Materials[current].DiffuseMap = fields[len(fields)-1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MTL: %w", err)
	}

	return mtl, nil
}

// LoadMTL parses an MTL file from disk.
func LoadMTL(path string) (*MTL, error) {
	f, err := openText(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mtl, err := ParseMTL(f)
	if err != nil {
		return nil, fmt.Errorf("parsing MTL %s: %w", path, err)
	}
	return mtl, nil
}
