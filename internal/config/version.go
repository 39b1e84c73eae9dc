package config

const VersionDev = "<dev>"

// Version is set automatically when creating release builds.
var Version = VersionDev
