/*
Package provision extracts runtime and library bundles into the install tree.

# Overview

A bundle is an archive (tar.xz, tar.zst, tar.gz, tar or zip) plus the
directory it installs into. Provisioning extracts into a staging directory
next to the destination, swaps it into place, and writes the install
manifest last. A destination without a manifest is never considered
installed, so any failure leaves a state that is safe to retry.

# Idempotence

The manifest records the source archive digest and a checksum per entry.
Provisioning a bundle whose manifest matches both the source archive and
the files on disk does nothing.

# Errors

Decode failures surface as errs.ErrCorruptArchive and a lack of space as
errs.ErrInsufficientStorage, both wrapped in an errs.Error of kind
ProvisioningError. Neither is retried here.
*/
package provision
