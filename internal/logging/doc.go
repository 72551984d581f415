// Package logging provides leveled log output for the whole application.
//
// The level is resolved once from the environment: DEBUG=true forces debug
// output, otherwise LOG_LEVEL selects one of debug, info, warn or error.
// The default is info.
package logging
