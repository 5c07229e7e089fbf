// Package core defines the iSamples Core canonical sample record, the values
// shared by every source transformer, and the exclusion signal used to drop a
// record from the index without failing a batch.
package core
