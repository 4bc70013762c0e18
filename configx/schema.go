// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/ory/jsonschema/v3"
)

func newCompiler(schema []byte, resources map[string][]byte) (string, *jsonschema.Compiler, error) {
	id := gjson.GetBytes(schema, "$id").String()
	if id == "" {
		id = fmt.Sprintf("%s.json", uuid.Must(uuid.NewRandom()).String())
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewBuffer(schema)); err != nil {
		return "", nil, errors.WithStack(err)
	}

	for rid, r := range resources {
		if err := compiler.AddResource(rid, bytes.NewBuffer(r)); err != nil {
			return "", nil, errors.WithStack(err)
		}
	}

	// DO NOT REMOVE THIS
	compiler.ExtractAnnotations = true

	return id, compiler, nil
}

func compileSchema(ctx context.Context, schema []byte, resources map[string][]byte) (*jsonschema.Schema, error) {
	id, compiler, err := newCompiler(schema, resources)
	if err != nil {
		return nil, err
	}

	s, err := compiler.Compile(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return s, nil
}

func (p *Provider) printHumanReadableValidationErrors(w io.Writer, err error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		_, _ = fmt.Fprintf(w, "configuration is invalid: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(w, "The configuration contains values or keys which are invalid:")
	printValidationError(w, ve, 0)
	_, _ = fmt.Fprintln(w)
}

func printValidationError(w io.Writer, ve *jsonschema.ValidationError, depth int) {
	ptr := ve.InstancePtr
	if ptr == "" || ptr == "#" {
		ptr = "(root)"
	}
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", strings.Repeat("  ", depth), strings.TrimPrefix(ptr, "#"), ve.Message)
	for _, c := range ve.Causes {
		printValidationError(w, c, depth+1)
	}
}
