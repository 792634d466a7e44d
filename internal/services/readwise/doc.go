// Package readwise fetches saved articles from the Readwise Reader API.
package readwise
