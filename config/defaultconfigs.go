package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development. Key: device id (the same value placed in
// ctx under CtxDeviceKey by cmd/hdc-hostsim and cmd/hdc-rp2's main() before
// calling Service.Resolve, which passes it to Load).
// -----------------------------------------------------------------------------

const cfgHostsim = `{
  "version_string": "HDC 1.0.0-alpha.12",
  "max_req_message_size": 254,
  "tx_buffer_size": 1024
}`

const cfgPico = `{
  "version_string": "HDC 1.0.0-alpha.12",
  "max_req_message_size": 128,
  "tx_buffer_size": 512
}`

var embeddedConfigs = map[string][]byte{
	"hostsim": []byte(cfgHostsim),
	"pico":    []byte(cfgPico),
}
