// Package mirror holds the secondary delivery targets an incident
// notification is copied to after the Telegram subscribers: a Slack
// channel, a Discord channel, and a NATS subject. Each subpackage exposes
// a delivery.Handler registered under its target prefix.
package mirror
