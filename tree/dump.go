// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package tree

import (
	"fmt"
	"io"
)

// Dump writes a human-readable trace of the tree to w, starting at the
// root. It is a debugging aid only: it is not part of the content-addressed
// structure and carries no invariants of its own.
func (e *Engine) Dump(w io.Writer) error {
	return e.dumpNode(w, e.root, 0)
}

func (e *Engine) dumpNode(w io.Writer, key [32]byte, depth int) error {
	rec, err := e.getRecord(key)
	if err != nil {
		return fmt.Errorf("could not read node %x: %w", key, err)
	}

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	switch rec.tag {
	case TagEmpty:
		fmt.Fprintf(w, "%sEMPTY\n", indent)
		return nil

	case TagFinal:
		fmt.Fprintf(w, "%sFINAL %x index_length=%d\n", indent, key, rec.indexLength)
		return nil

	case TagValue:
		fmt.Fprintf(w, "%sVALUE %x index_length=%d\n", indent, key, rec.indexLength)
		return nil

	case TagNormal:
		left, right := decodeChildren(rec.body)
		fmt.Fprintf(w, "%sNORMAL %x\n", indent, key)
		if err := e.dumpNode(w, left, depth+1); err != nil {
			return err
		}
		return e.dumpNode(w, right, depth+1)

	default:
		return fmt.Errorf("unknown node tag %d at %x", rec.tag, key)
	}
}
