// Package secrets stores API keys for the LLM classifier.
//
// Keys are written to the first store that accepts them: the system
// keychain, then an encrypted file under the user config directory. The
// environment (DICESCRAPER_<PROVIDER>_API_KEY) is consulted last and is
// read-only.
package secrets
