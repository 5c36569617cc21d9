// Package pipeline runs the recognition cycle for one frame.
//
// A Recognizer preprocesses the frame into a binary image, labels its
// 8-connected regions, keeps the largest one as the object, measures its
// feature vector and classifies it against a feature database. Every
// intermediate result is kept on the Frame so that any stage can be rendered
// with Render, and so that a frame can be learned into the database with
// Learn after the user names it.
package pipeline
