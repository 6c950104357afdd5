// Package native implements progcache.Device on top of gogpu/wgpu's HAL.
//
// Shader sources are WGSL. Each stage is compiled to SPIR-V with gogpu/naga
// and turned into a HAL shader module. Linking checks the stage combination
// (strict pipeline order, Fragment last) and gives the program its own stage
// modules, so the per-stage shaders can be deleted right after linking.
//
// A linked program serializes to a small container: a header with the
// format tag, the SPIR-V of every stage, and a CRC-32 trailer. Loading a
// container rebuilds the HAL modules from SPIR-V without running naga, and
// rejects truncated or corrupt data as well as a format tag that differs
// from the device's current one (see WithBinaryFormat).
//
// Use OpenNoop for headless, ahead-of-time cache generation, NewDevice to
// wrap an existing hal.Device, or NewDeviceFromProvider to share the device
// of a gpucontext.DeviceProvider host.
package native
