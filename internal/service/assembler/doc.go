// Package assembler builds the AppDir staging tree that appimagetool packs.
//
// The tree holds the executable, the icon, an AppRun launcher that puts the
// bundled lib/ on LD_LIBRARY_PATH, the desktop entry and every supporting folder.
package assembler
