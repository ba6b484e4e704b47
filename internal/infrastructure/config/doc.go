// Package config handles loading and validating Campus Power Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a dotenv file into the process environment
//   - Overriding with environment variables (CAMPUSPOWER_* and the legacy
//     DATABASE_URL, MQTT_BROKER and PORT)
//   - Validation of required fields
//
// Security Considerations:
//   - Secrets (broker password, JWT secret, InfluxDB token) belong in the
//     environment or the dotenv file, not in the YAML committed to a repo
//   - Dashboard users are configured with Argon2id hashes, never plaintext
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    return err
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
