// Package config loads the leagueops service configuration.
//
// A config file is YAML decoded over DefaultConfig:
//
//	cache:
//	  max_size_bytes: 104857600
//	  volatile_ttl: 5m
//	  regimes:
//	    transactions: volatile
//	rate_limit:
//	  max_calls: 60
//	  window: 1m
//	upstream:
//	  oauth:
//	    client_id: ${YAHOO_CLIENT_ID}
//	    client_secret: secretref:file:/run/secrets/yahoo_client_secret
//	    refresh_token: secretref:env:YAHOO_REFRESH_TOKEN
//	admin:
//	  addr: ":8080"
//	  jwt_secret: secretref:env:LEAGUEOPS_JWT_SECRET
//	game_ids:
//	  nfl:
//	    "2019": "390"
//
// Credential fields go through secret.Resolver, so they may use ${VAR}
// expansion or secretref: references. LEAGUEOPS_* variables (see ApplyEnv)
// override file values. Validate reports every problem at once in a
// *ValidationError.
package config
