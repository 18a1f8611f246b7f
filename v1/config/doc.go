// Package config loads the settings of all packages into one Config.
//
// Load reads environment variables through envconfig, using the variable
// names and defaults declared on each package's Config. LoadFile additionally
// overlays a YAML file:
//
//	instrumentation:
//	  response_propagation: false
//	  disabled: [httpclient]
//	kafka:
//	  brokers: ["${KAFKA_HOST}:9092"]
//	  topic: orders
//
// FXModule and FileModule provide *Config and each section, so package
// modules such as logger.FXModule find their Config in the container.
package config
