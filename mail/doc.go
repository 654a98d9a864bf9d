// Package mail moves RFPs and proposals through email.
//
// Outbound, RFPMailer renders an RFP as an HTML invitation and sends it to
// each vendor through a Sender (Resend in production). Inbound, a Mailbox
// (IMAP in production) yields unread messages parsed into InboundEmail, and
// the PDF helpers pull text out of attachments so proposals sent as
// documents can be read by the parser.
package mail
