// Package config provides runtime options and the configuration file for
// opendir: request settings, crawl defaults, and the registry of named
// index stores.
package config
