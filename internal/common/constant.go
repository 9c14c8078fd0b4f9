package common

// AuthorizationHeaderName is the HTTP header carrying the RapidPro API token.
const AuthorizationHeaderName = "Authorization"

// AuthorizationScheme prefixes the token value, e.g. "Token abc123".
const AuthorizationScheme = "Token"
