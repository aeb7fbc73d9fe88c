// Provides platform-appropriate default paths for shipyard.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS. The program name "shipyard" is used as the subdirectory under
// each base path.
package paths
