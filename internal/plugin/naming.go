package plugin

import "runtime"

// Naming is a dynamic library file naming convention.
type Naming struct {
	Prefix string
	Suffix string
}

// NamingFor returns the naming convention of the operating system goos.
func NamingFor(goos string) Naming {
	switch goos {
	case "darwin", "ios":
		return Naming{Prefix: "lib", Suffix: ".dylib"}
	case "windows":
		return Naming{Suffix: ".dll"}
	default:
		return Naming{Prefix: "lib", Suffix: ".so"}
	}
}

// DefaultNaming returns the naming convention of the host.
func DefaultNaming() Naming {
	return NamingFor(runtime.GOOS)
}

// FileName returns the library file name of module name.
func (n Naming) FileName(name string) string {
	return n.Prefix + name + n.Suffix
}
