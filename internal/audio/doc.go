// Package audio plays synthesized speech on the local sound device using
// oto/v3, and reads and writes the 16-bit PCM WAV data the speech service
// returns.
package audio
