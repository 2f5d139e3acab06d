// Package urls keeps the documentation links printed by the CLI in one place.
//
//	fmt.Printf("See: %s\n", urls.ClientCredentialsFlow)
package urls
