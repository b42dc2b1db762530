// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	StatusCode int
	// Status is the status line, e.g. "502 Bad Gateway".
	Status string
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Text())
}

// Text returns the reason phrase of the status line, falling back to the
// standard text for the code.
func (e *StatusError) Text() string {
	if text, ok := strings.CutPrefix(e.Status, strconv.Itoa(e.StatusCode)+" "); ok && text != "" {
		return text
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return "unexpected status"
}
