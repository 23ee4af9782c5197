// Package notify delivers job completion callbacks.
//
// A notifier performs exactly one delivery attempt per call; bounded
// retry is owned by the caller so attempt counts stay observable in one
// place. Webhook deliveries are authenticated with an HMAC-SHA256 body
// signature over a secret shared with the receiver.
package notify
