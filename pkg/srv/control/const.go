/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"errors"
	"time"
)

const (
	// DefaultEventLimit is the number of journal entries returned when the
	// request does not ask for a number
	DefaultEventLimit = 100
	ShutdownTimeout   = 5 * time.Second

	ContentTypeJSON  = "application/json"
	ContentTypeFrame = "application/octet-stream"
)

// ErrJournalDisabled returned for event queries when the journal is off
var ErrJournalDisabled = errors.New("DIO event journal is disabled")
