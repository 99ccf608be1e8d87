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

// Package apierror classifies errors returned while talking to the Bugsnag
// Data Access API. The client returns a *StatusError for every non-2xx
// response; an Inspector answers whether an arbitrary error chain means
// "unauthorized", "not found", "rate limited" or "network trouble".
package apierror
