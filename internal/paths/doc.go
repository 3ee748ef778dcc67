// Provides platform-appropriate paths for siteship state.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The name "siteship" is used as the subdirectory
// under each base path.
package paths
