// Package ingestion turns vendor replies sitting in the inbox into proposals.
//
// A Pipeline run for one RFP:
//   - opens a mailbox session and fetches unread messages
//   - keeps messages from the RFP's vendors or with a proposal-like subject
//   - skips messages already handled and senders who already responded
//   - extracts PDF attachment text and has the AI parse each reply
//   - stores one proposal per sender, then marks those messages seen
//
// Messages are processed concurrently on a worker pool. A failure on one
// message is logged and leaves it unread for the next run. The Poller
// repeats the run on a cron schedule for every RFP that has been sent.
package ingestion
