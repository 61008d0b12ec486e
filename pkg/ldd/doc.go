/*
The ldd package resolves the transitive shared-library closure of ELF objects.
For every visited object it assembles a search path from the standard loader
directories, the injected LD_LIBRARY_PATH directories and the object's own
RPATH/RUNPATH hints, probes the directories first-match-wins and recurses into
every newly found library. Resolution is all-or-nothing: one unresolvable
dependency fails the whole traversal.
*/
package ldd
