// Command generate-schema emits a JSON schema for the Lodestone
// configuration file, suitable for editor validation of config.yaml.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/marmos91/lodestone/pkg/config"
)

func main() {
	reflector := jsonschema.Reflector{
		// The YAML keys come from the mapstructure tags, not json tags.
		FieldNameTag:              "mapstructure",
		AllowAdditionalProperties: false,
		DoNotReference:            true, // Inline all definitions for simplicity

		// Every setting has a default applied at load time, so no key
		// is required in the file itself.
		RequiredFromJSONSchemaTags: true,

		// Durations are written as Go duration strings in the config.
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Description: `Go duration string, e.g. "30s" or "24h"`,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Lodestone Configuration"
	schema.Description = "Configuration schema for the Lodestone control plane"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}
