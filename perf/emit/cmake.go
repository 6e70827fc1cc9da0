package emit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// BuildDescriptorFile is the name of the emitted build descriptor.
	BuildDescriptorFile = "CMakeLists.txt"

	// DefaultModuleName is the library target when no name is supplied.
	DefaultModuleName = "ssttrees"
)

// WriteBuildDescriptor writes <outDir>/CMakeLists.txt declaring a loadable
// module target moduleName (DefaultModuleName when empty) built from every
// .cpp file in outDir.
//
// The sources are globbed at build time, not enumerated, so any stray .cpp
// file left in outDir is compiled into the module as well.
func WriteBuildDescriptor(fs afero.Fs, outDir, moduleName string) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if moduleName == "" {
		moduleName = DefaultModuleName
	}
	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outDir, BuildDescriptorFile)
	if err := writeLines(fs, path, buildDescriptor(moduleName)); err != nil {
		return err
	}
	logrus.Infof("wrote build descriptor %s for module %s", path, moduleName)
	return nil
}

func buildDescriptor(moduleName string) []string {
	return strings.Split(strings.TrimSpace(fmt.Sprintf(`
cmake_minimum_required(VERSION 3.12)
project(SSTrees CXX)
file(GLOB SOURCES "*.%s")
add_library(%s MODULE ${SOURCES})
`, SourceExt, moduleName)), "\n")
}
