// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package config loads the configuration of the console client and the backend
resource server.

The client is configured entirely from the environment, optionally seeded
from a .env file:

	c, err := config.LoadClient(".env")

The backend reads a YAML file whose values may be overridden from the
environment:

	b, err := config.LoadBackend("config.yaml")

Both are validated once loaded and all problems are reported together.
*/
package config
