// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/composer-errors/internal/xdg"
)

const schemaID = "https://holomush.dev/schemas/composer-errors.schema.json"

// configSchema reflects the JSON Schema of the config file.
func configSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&fileConfig{})
	s.ID = jsonschema.ID(schemaID)
	s.Title = "composer-errors config"
	s.Description = "Schema for composer-errors config.yaml files"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, oops.In("schema").Hint("failed to marshal schema").Wrap(err)
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	raw, err := configSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.In("schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(schemaID, doc); err != nil {
		return nil, oops.In("schema").Hint("failed to add schema resource").Wrap(err)
	}
	s, err := c.Compile(schemaID)
	if err != nil {
		return nil, oops.In("schema").Hint("failed to compile schema").Wrap(err)
	}
	return s, nil
})

// validateConfig checks YAML config data against the config schema.
func validateConfig(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.In("schema").Hint("invalid YAML").Wrap(err)
	}
	if doc == nil {
		return nil
	}

	// Round trip through JSON so numbers and maps take validator types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.In("schema").Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.In("schema").Wrap(err)
	}

	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(inst); err != nil {
		return oops.In("schema").Hint("config does not match schema").Wrap(err)
	}
	return nil
}

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := configSchema()
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err //nolint:wrapcheck // terminal write
			}

			if err := xdg.EnsureDir(filepath.Dir(output)); err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return oops.In("schema").With("file", output).Wrap(err)
			}
			cmd.Printf("Generated %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to a file instead of stdout")
	return cmd
}
