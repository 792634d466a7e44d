// Package notebooklm talks to the audio generation service: notebooks are
// created per article, a source document is attached, audio generation runs
// asynchronously, and the finished artifact is downloaded. Auth expiry and
// quota exhaustion are surfaced as distinct error classes because the
// pipeline ends the run early on either.
package notebooklm
