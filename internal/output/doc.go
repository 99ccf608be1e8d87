// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package output writes exported events as a single JSON array.
//
// The primary type is ArrayWriter. Records are encoded as they are written,
// without HTML escaping, so raw events keep their exact bytes. A file writer
// writes into a temporary file next to the destination and renames it into
// place on Close, so the destination is either left untouched or fully
// replaced.
//
// Example usage:
//
//	w, err := output.NewFileWriter("output.json")
//	if err != nil {
//	    return err
//	}
//	for _, record := range records {
//	    if err := w.Write(record); err != nil {
//	        w.Abort()
//	        return err
//	    }
//	}
//	if err := w.Close(); err != nil {
//	    return err
//	}
package output
