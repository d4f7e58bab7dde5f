package cmd

import (
	"encoding/json"
	"fmt"
)

// PrettyPrint renders v as indented json
func PrettyPrint(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return string(b), nil
}
