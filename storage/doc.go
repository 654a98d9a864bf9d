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


// Package storage provides the storage abstraction layer for BidGrid.
//
// This package defines repository interfaces that decouple the document store
// from business logic. Documents (users, vendors, RFPs with their chat history,
// proposals) are serialized as JSON so free-form fields such as RFP specs and
// LLM-parsed proposal data round-trip unchanged.
//
// # Architecture
//
//   - UserRepository: accounts, unique by email and by username
//   - VendorRepository: per-owner vendor books, unique by (owner, email)
//   - RFPRepository: RFPs with embedded chat history
//   - ProposalRepository: proposals, unique by (rfp, vendor email)
//   - InboxRepository: fingerprints of inbound emails already ingested
//
// Uniqueness violations are reported as ErrDuplicateKey and missing documents
// as ErrNotFound, so callers can map them with errors.Is.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	vendors := badger.NewVendorRepository(backend)
//
// Tests use an in-memory backend:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
