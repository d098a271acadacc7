package middle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akolanti/irbench/internal/domain/middleModel"
)

// LoadFile decodes one *_middle.json file.
func LoadFile(path string) (middleModel.Document, error) {
	var doc middleModel.Document
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
