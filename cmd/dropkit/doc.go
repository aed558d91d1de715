// Command dropkit validates drop-camera observation records against a rule
// document and exports site-level aggregations as tabular and shapefile
// outputs.
package main
