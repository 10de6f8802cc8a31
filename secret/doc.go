// Package secret resolves credentials referenced from configuration.
//
// Values first go through strict environment expansion (ExpandEnvStrict),
// then any "secretref:<provider>:<ref>" reference is replaced by the value
// the named provider returns:
//
//	client_secret: secretref:file:/run/secrets/yahoo_client_secret
//	refresh_token: secretref:env:YAHOO_REFRESH_TOKEN
//	api_key: "${ADMIN_API_KEY}"
//
// NewDefaultResolver registers the "env" and "file" providers.
package secret
