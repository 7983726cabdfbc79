// Package config loads jotdown settings from an optional .env file and the
// process environment.
//
// Load applies defaults for every value, so an empty environment yields a
// working local setup: a database under ~/.jotdown, the offline embedding and
// generation providers, a 500ms search debounce and a 0.30 similarity floor
// for categorization.
//
// Provider credentials are not copied into Config. The embedder and generator
// factories read them when EmbedderConfig and GeneratorConfig are turned into
// providers.
package config
