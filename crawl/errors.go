// Copyright 2025 Poiesic Systems
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

package crawl

import "errors"

var (
	// ErrURLTooLong indicates the URL exceeds the configured length cap.
	ErrURLTooLong = errors.New("url exceeds maximum length")

	// ErrSchemeNotAllowed indicates a scheme outside the allow-list.
	ErrSchemeNotAllowed = errors.New("url scheme not allowed")

	// ErrMissingHost indicates a URL without a host component.
	ErrMissingHost = errors.New("url has no host")

	// ErrDomainBlocked indicates the host is on the block-list.
	ErrDomainBlocked = errors.New("domain is blocked")

	// ErrInvalidDomain indicates a host that is not a well-formed domain name.
	ErrInvalidDomain = errors.New("invalid domain format")

	// ErrUnparseableURL indicates the URL could not be parsed at all.
	ErrUnparseableURL = errors.New("url could not be parsed")

	// ErrContentTooLarge indicates a response body above the configured cap.
	ErrContentTooLarge = errors.New("response body exceeds maximum size")
)
