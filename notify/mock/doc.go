// Package mock provides a test double for the notify.Notifier capability.
package mock
