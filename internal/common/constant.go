package common

// APIKeyHeaderName is the HTTP header carrying the project API key on every
// gateway request.
const APIKeyHeaderName = "apikey"
