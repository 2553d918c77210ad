/*
Package language provides the static catalog of supported spoken languages.

Each Entry bundles everything the call flow needs for one locale: the speech
recognition/synthesis locale tag, the synthesized voice, the prompt texts,
the termination phrases, and the generation backend's system instructions.

The catalog is built and validated once at startup and is read-only
afterwards, so it is safe for unsynchronized concurrent reads. Resolution
never fails: an unknown or empty selector yields the default entry.
*/
package language
