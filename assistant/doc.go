// Package assistant holds BidGrid's LLM-backed procurement logic.
//
// Three conversations are modelled here:
//
//   - Drafter turns a buyer's chat into a complete RFP. The model replies in
//     prose and, once everything is known, appends a ```json block that
//     ParseRFPFromResponse extracts.
//   - ProposalParser reads a vendor's email (plus PDF text) and extracts a
//     core.ParsedProposal. Output is validated against a JSON schema and
//     retried when malformed.
//   - Recommender compares every proposal for an RFP and names a winner.
//
// QuickComparison computes the same headline numbers without calling a model.
package assistant
