// Package config assembles the engine's mount-time options from flags, in
// the style of gcsfuse's cfg package: a pflag.FlagSet feeds a viper.Viper,
// which is then decoded into a plain Options struct the rest of the
// program depends on instead of passing viper handles around. This package
// does not itself read environment variables or a config file; values
// come from whatever sources the caller has set up on the viper.Viper.
package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options are the mount-time settings spec.md §6 lists, plus the default
// permission bits the shared create routine needs for mknod/mkdir/create
// when the caller supplies a bare mode.
type Options struct {
	// DirectIO mirrors the direct_io mount option: Open replies carry the
	// direct-IO flag, disabling the kernel page cache for this mount.
	DirectIO bool

	// SUIDSupport, when false, causes creation-time SUID/SGID bits to be
	// stripped (permkernel.CreationMode).
	SUIDSupport bool

	// Uid/Gid are the identity assigned to the lazily-created root item.
	Uid uint32
	Gid uint32

	// FilePerm/DirPerm are the permission bits given to newly created
	// regular files and directories when the request's mode carries no
	// permission bits of its own; SUID/SGID stripping still applies.
	FilePerm uint32
	DirPerm  uint32

	// Debug enables the background invariant sweep in engine.Dispatcher.
	Debug bool

	// JSONLogs selects the JSON log handler over the default text one.
	JSONLogs bool
}

// Defaults returns the option set used when nothing overrides it.
func Defaults() Options {
	return Options{
		DirectIO:    false,
		SUIDSupport: true,
		Uid:         0,
		Gid:         0,
		FilePerm:    0o644,
		DirPerm:     0o777,
		Debug:       false,
		JSONLogs:    false,
	}
}

// BindFlags registers this package's flags on fs, the way gcsfuse's cfg
// package registers mount flags on a cobra command's pflag.FlagSet.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Bool("direct-io", d.DirectIO, "disable the kernel page cache for this mount")
	fs.Bool("suid-support", d.SUIDSupport, "preserve SUID/SGID bits on file creation")
	fs.Uint32("uid", d.Uid, "owner uid assigned to the filesystem root")
	fs.Uint32("gid", d.Gid, "owner gid assigned to the filesystem root")
	fs.Uint32("file-perm", d.FilePerm, "default permission bits for newly created files")
	fs.Uint32("dir-perm", d.DirPerm, "default permission bits for newly created directories")
	fs.Bool("debug", d.Debug, "enable the background node-store invariant sweep")
	fs.Bool("json-logs", d.JSONLogs, "emit logs as JSON instead of text")
}

// Load binds fs into v (so flags win over file/env defaults already set on
// v) and decodes the result into an Options value.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Options, error) {
	if err := v.BindPFlags(fs); err != nil {
		return Options{}, err
	}

	opts := Defaults()
	opts.DirectIO = v.GetBool("direct-io")
	opts.SUIDSupport = v.GetBool("suid-support")
	opts.Uid = v.GetUint32("uid")
	opts.Gid = v.GetUint32("gid")
	opts.FilePerm = v.GetUint32("file-perm")
	opts.DirPerm = v.GetUint32("dir-perm")
	opts.Debug = v.GetBool("debug")
	opts.JSONLogs = v.GetBool("json-logs")
	return opts, nil
}
