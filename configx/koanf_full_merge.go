// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MergeAllTypes writes every leaf of src into dst, replacing values of any type.
// Arrays are leaves: they replace the destination array as a whole.
func MergeAllTypes(src, dst map[string]interface{}) error {
	rawSrc, err := json.Marshal(src)
	if err != nil {
		return errors.WithStack(err)
	}

	rawDst, err := json.Marshal(dst)
	if err != nil {
		return errors.WithStack(err)
	}

	for key, value := range flatten(gjson.ParseBytes(rawSrc), "") {
		rawDst, err = sjson.SetRawBytes(rawDst, key, []byte(value))
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(json.Unmarshal(rawDst, &dst))
}

// flatten maps the sjson path of every non-object leaf to its raw JSON.
func flatten(r gjson.Result, prefix string) map[string]string {
	out := map[string]string{}
	if !r.IsObject() {
		if prefix != "" {
			out[prefix] = r.Raw
		}
		return out
	}

	r.ForEach(func(k, v gjson.Result) bool {
		path := escapePath(k.String())
		if prefix != "" {
			path = prefix + "." + path
		}
		for p, raw := range flatten(v, path) {
			out[p] = raw
		}
		return true
	})
	return out
}
